package pipeline

import "fmt"

// 中文说明：
// 运行级致命错误分类。调用失败默认降级吞掉，只有这三类会让整次运行报错：
// 入参不合法、一个候选都没拿到、有候选但全部不过资格线。

// ValidationError 请求入参不合法。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("请求参数不合法: %s %s", e.Field, e.Reason)
}

// NoCandidatesError 所有提供方都没能产出候选图。
type NoCandidatesError struct {
	Providers []string
	LastErr   error
}

func (e *NoCandidatesError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("全部提供方生成失败（%d 个），最后错误: %v", len(e.Providers), e.LastErr)
	}
	return fmt.Sprintf("全部提供方生成失败（%d 个）", len(e.Providers))
}

func (e *NoCandidatesError) Unwrap() error { return e.LastErr }

// NoEligibleCandidateError 有候选图但没有任何一个通过评分/一致性资格线。
type NoEligibleCandidateError struct {
	Total int
}

func (e *NoEligibleCandidateError) Error() string {
	return fmt.Sprintf("共 %d 个候选，均未通过资格线", e.Total)
}
