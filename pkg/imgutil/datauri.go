package imgutil

import "strings"

// ToDataURI は base64 文字列を data URI に包みます。
func ToDataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// StripDataURI は data URI のプレフィックスを取り除き、生の base64 を返します。
// プレフィックスが無ければ入力をそのまま返します。
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}
