package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
)

// DefaultJPEGQuality は参照画像を再エンコードするときの品質です。
const DefaultJPEGQuality = 75

// CompressToJPEG は参照画像（PNG, GIF, JPEG）を指定品質の JPEG に再エンコードします。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EnsureJPEG は JPEG 以外の画像を JPEG に変換します。すでに JPEG ならそのまま返すのだ。
// 両方言とも参照画像を image/jpeg として送るため、中身をそれに合わせます。
func EnsureJPEG(data []byte, quality int) ([]byte, error) {
	if http.DetectContentType(data) == "image/jpeg" {
		return data, nil
	}
	return CompressToJPEG(data, quality)
}
