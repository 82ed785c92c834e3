// Package scanner превращает кадры камеры (или ручной ввод) в проверенный
// чек-ин код и прогоняет его через submitter.
package scanner

import "regexp"

// Формат кода фиксированный: ровно 48 символов lowercase hex.
var codeRe = regexp.MustCompile(`^[0-9a-f]{48}$`)

func ValidCode(s string) bool {
	return codeRe.MatchString(s)
}

// Frame — один кадр видеопотока. Содержимое для нас непрозрачно,
// его разбирает Decoder.
type Frame struct {
	Data []byte
}

// FrameSource — абстракция камеры. Close обязан освободить устройство;
// после Close канал Frames закрывается.
type FrameSource interface {
	Frames() <-chan Frame
	Close() error
}

// Decoder пытается вытащить QR-полезную нагрузку из кадра.
type Decoder interface {
	Decode(f Frame) (payload string, ok bool)
}
