package provider

import "context"

// 中文说明：
// 生成提供方适配器契约。编排器对所有适配器一视同仁：
// 给定规范化请求，返回一张或多张图片，或失败。
// 重试/退避属于适配器内部职责，编排器不关心。

// Request 规范化的生成请求。
type Request struct {
	Task       string // text2image | image2image
	Prompt     string
	References []string
	Size       string
	// Variations 期望的出图数量；仅 burst 型适配器会在单次调用中兑现多张。
	Variations int
	Params     map[string]any
}

// Image 适配器产出的单张图片。
// SequenceIndex/GroupSize 仅在按序批量出图时填充（GroupSize=0 表示非组图）。
type Image struct {
	URL           string
	SequenceIndex int
	GroupSize     int
}

// Result 一次生成调用的产物。
type Result struct {
	Images   []Image
	Metadata map[string]any
}

// Adapter 生成提供方的统一接口。
type Adapter interface {
	ID() string
	Enabled() bool
	// SupportsBurst 为 true 时，一次 Generate 可携带 Variations>1 返回有序多图；
	// 否则编排器按张数逐次调用。
	SupportsBurst() bool

	Generate(ctx context.Context, req Request) (Result, error)
}
