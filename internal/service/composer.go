package service

import (
	"fmt"
	"time"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
)

// Message composition is pure: no I/O, no clock reads. Every Compose*
// function caps its result at the platform's per-call message ceiling instead
// of erroring; callers decide whether dropped trailing content matters.

type FileLink struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

type QuotationLine struct {
	Label  string `json:"label" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

type QuotationParams struct {
	Title string          `json:"title" validate:"required"`
	Lines []QuotationLine `json:"lines" validate:"min=1,dive"`
	Total string          `json:"total" validate:"required"`
	Note  string          `json:"note"`
}

type BroadcastParams struct {
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body" validate:"required"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

func ComposeText(text string) []line.Message {
	return []line.Message{line.NewTextMessage(text)}
}

// ComposeImageSet renders an optional caption followed by the images in the
// order supplied.
func ComposeImageSet(imageURLs []string, caption string) []line.Message {
	var msgs []line.Message
	if caption != "" {
		msgs = append(msgs, line.NewTextMessage(caption))
	}
	for _, url := range imageURLs {
		msgs = append(msgs, line.NewImageMessage(url, ""))
	}
	return CapEnvelopes(msgs)
}

// ComposeStatusUpdate renders the status card first, then images in supplied
// order, then one text envelope per file attachment (name plus link; binary
// files are never transmitted directly).
func ComposeStatusUpdate(ev *model.Event, progress int, imageURLs []string, files []FileLink) []line.Message {
	msgs := []line.Message{statusCard(ev, progress)}
	for _, url := range imageURLs {
		msgs = append(msgs, line.NewImageMessage(url, ""))
	}
	for _, f := range files {
		msgs = append(msgs, line.NewTextMessage(fmt.Sprintf("📎 %s\n%s", f.Name, f.URL)))
	}
	return CapEnvelopes(msgs)
}

func ComposeEventCard(ev *model.Event) []line.Message {
	rows := []any{
		flexText(ev.Name, "lg", true),
		flexKV("รหัสงาน", ev.InviteCode),
	}
	if ev.TargetDate != nil {
		rows = append(rows, flexKV("วันงาน", FormatThaiDate(*ev.TargetDate)))
	}
	if ev.Venue != "" {
		rows = append(rows, flexKV("สถานที่", ev.Venue))
	}

	return []line.Message{line.NewFlexMessage("งาน: "+ev.Name, flexBubble(rows))}
}

func ComposeQuotation(q QuotationParams) []line.Message {
	rows := []any{
		flexText("ใบเสนอราคา", "sm", false),
		flexText(q.Title, "lg", true),
		flexSeparator(),
	}
	for _, item := range q.Lines {
		rows = append(rows, flexKV(item.Label, item.Amount))
	}
	rows = append(rows, flexSeparator(), flexKV("รวมทั้งสิ้น", q.Total))
	if q.Note != "" {
		rows = append(rows, flexText(q.Note, "xs", false))
	}

	return []line.Message{line.NewFlexMessage("ใบเสนอราคา: "+q.Title, flexBubble(rows))}
}

func ComposeAdminBroadcast(b BroadcastParams) []line.Message {
	rows := []any{
		flexText(b.Title, "lg", true),
		flexText(b.Body, "md", false),
	}

	bubble := flexBubble(rows)
	if b.ImageURL != "" {
		bubble["hero"] = map[string]any{
			"type":        "image",
			"url":         b.ImageURL,
			"size":        "full",
			"aspectMode":  "cover",
			"aspectRatio": "20:13",
		}
	}

	return []line.Message{line.NewFlexMessage(b.Title, bubble)}
}

// CapEnvelopes truncates a composed sequence to the platform ceiling. Never
// errors for "too many attachments"; warning about dropped content is the
// caller's concern.
func CapEnvelopes(msgs []line.Message) []line.Message {
	if len(msgs) > line.MaxMessagesPerRequest {
		return msgs[:line.MaxMessagesPerRequest]
	}
	return msgs
}

func statusCard(ev *model.Event, progress int) line.Message {
	rows := []any{
		flexText(ev.Name, "lg", true),
		flexKV("สถานะ", statusLabel(ev.Status)),
	}
	if progress > 0 {
		rows = append(rows, flexKV("ความคืบหน้า", fmt.Sprintf("%d%%", progress)))
	}
	if ev.Venue != "" {
		rows = append(rows, flexKV("สถานที่", ev.Venue))
	}
	if ev.TargetDate != nil {
		rows = append(rows, flexKV("วันงาน", FormatThaiDate(*ev.TargetDate)))
	}

	return line.NewFlexMessage("สถานะงาน: "+ev.Name, flexBubble(rows))
}

var thaiMonths = [...]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

// FormatThaiDate renders the long Thai date form with the Buddhist-era year.
// A time component is appended only when the time of day is non-midnight.
func FormatThaiDate(t time.Time) string {
	date := fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()-1], t.Year()+543)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return date
	}
	return fmt.Sprintf("%s %02d:%02d น.", date, t.Hour(), t.Minute())
}

func statusLabel(s model.EventStatus) string {
	switch s {
	case model.EventStatusDraft:
		return "แบบร่าง"
	case model.EventStatusConfirmed:
		return "ยืนยันแล้ว"
	case model.EventStatusInProgress:
		return "กำลังดำเนินการ"
	case model.EventStatusCompleted:
		return "เสร็จสิ้น"
	case model.EventStatusCancelled:
		return "ยกเลิก"
	default:
		return string(s)
	}
}

// Flex layout helpers

func flexBubble(bodyContents []any) map[string]any {
	return map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":     "box",
			"layout":   "vertical",
			"spacing":  "sm",
			"contents": bodyContents,
		},
	}
}

func flexText(text, size string, bold bool) map[string]any {
	item := map[string]any{
		"type": "text",
		"text": text,
		"size": size,
		"wrap": true,
	}
	if bold {
		item["weight"] = "bold"
	}
	return item
}

func flexKV(label, value string) map[string]any {
	return map[string]any{
		"type":   "box",
		"layout": "baseline",
		"contents": []any{
			map[string]any{"type": "text", "text": label, "size": "sm", "color": "#8C8C8C", "flex": 2},
			map[string]any{"type": "text", "text": value, "size": "sm", "wrap": true, "flex": 5},
		},
	}
}

func flexSeparator() map[string]any {
	return map[string]any{"type": "separator"}
}
