package domain

// BatchItem はバッチに含まれる 1 タイル分の入力です。
type BatchItem struct {
	Prompt   string `json:"prompt" yaml:"prompt"`
	ImageURL string `json:"imageUrl" yaml:"imageUrl"`
}

// ValidatedImage は取得・検証済みで 1024x1024 に正規化された参照画像です。
type ValidatedImage struct {
	Data   []byte
	Format ImageFormat
}

// BatchResult は元のプロンプトと対応付けられた出力タイルです。
type BatchResult struct {
	Index         int
	Prompt        string
	InputImageURL string
	OutputImage   []byte
	OutputFormat  OutputFormat
}
