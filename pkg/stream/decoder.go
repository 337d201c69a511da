// Package stream は SSE レスポンスボディのデコードとイベント分割を提供します。
package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoStream はレスポンスに読み取り可能なボディが無い場合のエラーです。
var ErrNoStream = errors.New("cannot read response stream")

// chunkSize は 1 回の Read で要求するバイト数です。
const chunkSize = 32 * 1024

// Decode はボディをチャンク単位で読み、UTF-8 としてインクリメンタルにデコードして
// 1 つの文字列に連結します。チャンク境界で分割されたマルチバイト文字は
// デコーダ内部に保持され、次のチャンクと結合されてから出力されます。
// 先頭の BOM は取り除き、不正なバイト列は U+FFFD に置き換えます。
func Decode(body io.Reader) (string, error) {
	if body == nil {
		return "", ErrNoStream
	}

	// EOF で Transform が atEOF=true で呼ばれ、残りのバイトが 1 度だけフラッシュされる
	r := transform.NewReader(body, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	var sb strings.Builder
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), fmt.Errorf("read response stream: %w", err)
		}
	}
}
