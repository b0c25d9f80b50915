package controller

import (
	"bytes"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Размеры и отступы
const (
	imageWidth        = 1400
	imageHeight       = 900
	headerHeight      = 100
	leftLabelsWidth   = 80
	legendWidth       = 140
	dayPaddingX       = 8
	minBlockHeight    = 8.0
	blockBorderRadius = 6.0
	daysInWeek        = 7
	hourPadding       = 1
	defaultMinHour    = 8
	defaultMaxHour    = 20
)

// Шрифты
const (
	titleFontSize  = 25.0
	dayFontSize    = 24.0
	hourFontSize   = 18.0
	blockFontSize  = 16.0
	legendFontSize = 13.0
)

var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}

	slotColor      = color.RGBA{190, 220, 250, 160} // окно доступности
	freeColor      = color.RGBA{133, 193, 85, 220}
	bookedColor    = color.RGBA{255, 182, 193, 255}
	completedColor = color.RGBA{158, 158, 158, 200}
	blockTextColor = color.RGBA{20, 24, 28, 230}
)

type weekRange struct {
	start time.Time // понедельник 00:00
	end   time.Time // следующий понедельник 00:00
}

type hourRange struct {
	start int
	end   int
}

func (h hourRange) total() int { return h.end - h.start }

var (
	fontsMu     sync.Mutex
	parsedFonts = map[bool]*opentype.Font{}
)

// setFont выбирает Go-шрифт нужного размера, при ошибке basicfont
func setFont(dc *gg.Context, size float64, bold bool) {
	fontsMu.Lock()
	parsed, ok := parsedFonts[bold]
	if !ok {
		data := goregular.TTF
		if bold {
			data = gobold.TTF
		}
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			parsed = nil
		}
		parsedFonts[bold] = parsed
	}
	fontsMu.Unlock()

	if parsed != nil {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// weekOf неделя (Пн-Вс), в которую попадает t
func weekOf(t time.Time) weekRange {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return weekRange{start: start, end: start.AddDate(0, 0, daysInWeek)}
}

// RenderWeek рисует неделю: окна доступности фоном, занятия поверх. Возвращает PNG.
func RenderWeek(now time.Time, sessions []*model.Session, slots []model.AvailabilitySlot) ([]byte, error) {
	loc := now.Location()
	week := weekOf(now)
	hours := visibleHours(sessions, slots, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := float64(imageWidth-leftLabelsWidth-legendWidth) / daysInWeek
	dayHeight := float64(imageHeight - headerHeight)
	cellHeight := dayHeight / float64(hours.total())

	drawTitle(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	for i := 0; i < daysInWeek; i++ {
		day := week.start.AddDate(0, 0, i)
		x := float64(leftLabelsWidth) + float64(i)*dayWidth
		y := float64(headerHeight)

		switch {
		case sameDay(day, now):
			dc.SetColor(todayBgColor)
		case i%2 == 0:
			dc.SetColor(evenDayColor)
		default:
			dc.SetColor(oddDayColor)
		}
		dc.DrawRectangle(x, y, dayWidth, dayHeight)
		dc.Fill()

		setFont(dc, dayFontSize, true)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(day.Format("02.01")+" "+weekdayShort(day.Weekday()), x+dayWidth/2, y-12, 0.5, 0)

		dc.SetLineWidth(0.3)
		dc.SetColor(hourLineColor)
		for h := 0; h <= hours.total(); h++ {
			hy := y + float64(h)*cellHeight
			dc.DrawLine(x, hy, x+dayWidth, hy)
			dc.Stroke()
		}

		dayEnd := day.AddDate(0, 0, 1)
		for _, slot := range slots {
			if slot.Overlaps(day, dayEnd) {
				drawBlock(dc, day, slot.StartTime.In(loc), slot.EndTime.In(loc), x, dayWidth, hours, cellHeight, slotColor, "")
			}
		}
		for _, s := range sessions {
			if s.ConflictsWith(day, dayEnd) {
				drawBlock(dc, day, s.StartTime.In(loc), s.EndTime().In(loc), x, dayWidth, hours, cellHeight,
					sessionColor(s), s.StartTime.In(loc).Format("15:04")+" "+s.Title)
			}
		}
	}

	drawLegend(dc, float64(leftLabelsWidth)+daysInWeek*dayWidth+10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// visibleHours диапазон часов, в который помещаются все блоки недели
func visibleHours(sessions []*model.Session, slots []model.AvailabilitySlot, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0
	extend := func(start, end time.Time) {
		start, end = start.In(loc), end.In(loc)
		if start.Hour() < minHour {
			minHour = start.Hour()
		}
		endHour := end.Hour()
		if end.Minute() > 0 {
			endHour++
		}
		if !sameDay(start, end) {
			endHour = 24
		}
		if endHour > maxHour {
			maxHour = endHour
		}
	}

	for _, s := range sessions {
		extend(s.StartTime, s.EndTime())
	}
	for _, slot := range slots {
		extend(slot.StartTime, slot.EndTime)
	}

	if minHour > maxHour {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	return hourRange{
		start: max(0, minHour-hourPadding),
		end:   min(24, maxHour+hourPadding),
	}
}

func drawTitle(dc *gg.Context, week weekRange) {
	last := week.end.AddDate(0, 0, -1)
	title := monthName(week.start.Month())
	if last.Month() != week.start.Month() {
		title += " - " + monthName(last.Month())
	}

	setFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/3, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourFontSize, false)
	dc.SetColor(hourLabelColor)

	for h := 0; h <= hours.total(); h++ {
		y := float64(headerHeight) + float64(h)*cellHeight
		label := time.Date(2000, 1, 1, (hours.start+h)%24, 0, 0, 0, time.UTC).Format("15:04")
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

// drawBlock рисует часть интервала [start, end), попавшую в день day
func drawBlock(dc *gg.Context, day, start, end time.Time, x, dayWidth float64, hours hourRange, cellHeight float64, fill color.RGBA, label string) {
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	if start.Before(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}

	from := start.Sub(dayStart).Hours() - float64(hours.start)
	to := end.Sub(dayStart).Hours() - float64(hours.start)

	blockY := float64(headerHeight) + from*cellHeight
	blockHeight := (to - from) * cellHeight
	if blockHeight < minBlockHeight {
		blockHeight = minBlockHeight
	}
	blockWidth := dayWidth - dayPaddingX*2

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, blockY+2, blockWidth, blockHeight-4, blockBorderRadius)
	dc.Fill()

	if label == "" {
		return
	}

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, blockY+2, blockWidth, blockHeight-4, blockBorderRadius)
	dc.Stroke()

	if blockHeight > 20 {
		runes := []rune(label)
		if len(runes) > 18 {
			label = string(runes[:15]) + "..."
		}
		setFont(dc, blockFontSize, false)
		dc.SetColor(blockTextColor)
		dc.DrawStringAnchored(label, x+dayPaddingX+6, blockY+18, 0, 0)
	}
}

func drawLegend(dc *gg.Context, x float64) {
	items := []struct {
		label string
		fill  color.RGBA
	}{
		{"Окно", slotColor},
		{"Свободно", freeColor},
		{"Забронировано", bookedColor},
		{"Проведено", completedColor},
	}

	y := float64(imageHeight) - 140
	for _, item := range items {
		dc.SetColor(item.fill)
		dc.DrawRoundedRectangle(x, y, 20, 14, 3)
		dc.Fill()

		setFont(dc, legendFontSize, false)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+28, y+8, 0, 0.2)
		y += 28
	}
}

func sessionColor(s *model.Session) color.RGBA {
	switch {
	case s.Status == model.SessionStatusCompleted:
		return completedColor
	case s.IsBooked():
		return bookedColor
	default:
		return freeColor
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func weekdayShort(weekday time.Weekday) string {
	return [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}[weekday]
}

func monthName(month time.Month) string {
	return [...]string{"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь", "Июль",
		"Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь"}[month-1]
}
