package domain

import (
	"errors"
	"fmt"
)

// バッチ処理で発生するエラーの分類です。呼び出し側は errors.Is で判定します。
var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrInvalidLayout     = errors.New("invalid layout")
	ErrInvalidItem       = errors.New("invalid item")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrAcquisition       = errors.New("image acquisition failed")
	ErrUpload            = errors.New("upload failed")
	ErrRemoteModel       = errors.New("remote model failed")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrPollTimeout       = errors.New("prediction polling timed out")
)

// ItemError は不正なバッチアイテムの位置とフィールドを保持します。
type ItemError struct {
	Index int
	Field string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d has an invalid %s", e.Index, e.Field)
}

func (e *ItemError) Unwrap() error { return ErrInvalidItem }

// AcquisitionError は参照画像の取得・デコード失敗です。
// Status は HTTP ステータスなど、取得元が返した状態を表します（不明なら 0）。
type AcquisitionError struct {
	URI    string
	Status int
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to acquire %s (status %d): %v", e.URI, e.Status, e.Err)
	}
	return fmt.Sprintf("failed to acquire %s: %v", e.URI, e.Err)
}

// Unwrap は ErrAcquisition と元のエラーの両方を返すため、errors.Is はどちらにも一致します。
func (e *AcquisitionError) Unwrap() []error { return []error{ErrAcquisition, e.Err} }

// DimensionError はモデルが返した合成画像のサイズが想定と異なることを示します。
type DimensionError struct {
	Width    int
	Height   int
	Expected int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("unexpected output size %dx%d, expected %dx%d", e.Width, e.Height, e.Expected, e.Expected)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// RemoteModelError はリモートモデルの終端ステータス（failed / canceled）を保持します。
type RemoteModelError struct {
	Status  string
	Message string
}

func (e *RemoteModelError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Status == "" {
		return "prediction failed: " + msg
	}
	return fmt.Sprintf("prediction %s: %s", e.Status, msg)
}

func (e *RemoteModelError) Unwrap() error { return ErrRemoteModel }
