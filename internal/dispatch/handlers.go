package dispatch

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var wonPrinter = message.NewPrinter(language.Korean)

func (d *Dispatcher) availableMenu(_ time.Time, _ map[string]any) (string, error) {
	items := d.data.AvailableMenu().Items()
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsAvailable {
			continue
		}
		lines = append(lines, wonPrinter.Sprintf("- %s (%d원)", it.Name, it.Price))
	}
	if len(lines) == 0 {
		return "현재 주문 가능한 메뉴가 없습니다.", nil
	}
	return "현재 주문 가능한 메뉴입니다:\n" + strings.Join(lines, "\n"), nil
}

func (d *Dispatcher) businessHours(now time.Time, _ map[string]any) (string, error) {
	hours := d.data.BusinessHours()
	today, err := hours.On(now)
	if err != nil {
		return "", err
	}

	open, err := today.IsOpenAt(now)
	if err != nil {
		return "", err
	}
	holiday, isHoliday := hours.HolidayOn(now)
	if isHoliday {
		open = false
	}

	var b strings.Builder
	b.WriteString("영업시간은 " + today.Open + "부터 " + today.Close + "까지입니다.")
	if open {
		b.WriteString("\n현재 영업 중입니다.")
	} else {
		b.WriteString("\n현재는 영업 시간이 아닙니다.")
	}
	if isHoliday && holiday.Description != "" {
		b.WriteString("\n" + holiday.Description)
	}
	if hours.SpecialNotes != "" {
		b.WriteString("\n" + hours.SpecialNotes)
	}
	return b.String(), nil
}

func (d *Dispatcher) facilities(_ time.Time, _ map[string]any) (string, error) {
	f := d.data.Facilities()
	var lines []string
	if f.Parking.Available {
		lines = append(lines, "주차: "+f.Parking.Description)
	}
	if f.Wifi.Available {
		if f.Wifi.Password != "" {
			lines = append(lines, "와이파이: "+f.Wifi.Name+" (비밀번호: "+f.Wifi.Password+")")
		} else {
			lines = append(lines, "와이파이: "+f.Wifi.Name)
		}
	}
	if f.Power.Available {
		lines = append(lines, "콘센트: "+f.Power.Description)
	}
	if len(lines) == 0 {
		return "죄송합니다. 문의하신 시설 정보가 없습니다.", nil
	}
	return "매장 시설 안내입니다:\n" + strings.Join(lines, "\n"), nil
}
