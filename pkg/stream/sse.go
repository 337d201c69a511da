package stream

import "strings"

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "

	// DoneSentinel は OpenAI 互換 API がストリーム終端に送るデータです。
	DoneSentinel = "[DONE]"
)

// Event は 1 行の data フィールドと、その時点の event 名の組です。
// Name が空なら無名（デフォルト）イベントなのだ。
type Event struct {
	Name string
	Data string
}

// ParseEvents はデコード済みの全文を改行で分割し、data 行ごとに Event を返します。
// event 行は以降の data 行に適用される名前を上書きします。
// data 行の値は先頭 6 文字を除いただけで trim しません。[DONE] もそのまま返すので、
// 読み飛ばしは呼び出し側の責務です。
func ParseEvents(text string) []Event {
	var (
		events  []Event
		current string
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, eventPrefix):
			current = strings.TrimSpace(line[len(eventPrefix):])
		case strings.HasPrefix(line, dataPrefix):
			events = append(events, Event{Name: current, Data: line[len(dataPrefix):]})
		}
	}
	return events
}

// IsDone は data が [DONE] 番兵かどうかを返します。
func IsDone(data string) bool {
	return strings.TrimSpace(data) == DoneSentinel
}
