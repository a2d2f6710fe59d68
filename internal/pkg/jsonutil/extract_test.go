package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"裸对象", `{"a":1}`, `{"a":1}`, true},
		{"前后有废话", `好的，结果如下：{"a":1} 请查收`, `{"a":1}`, true},
		{"带语言标注的围栏", "```json\n{\"score\": 8}\n```", `{"score": 8}`, true},
		{"无标注围栏", "```\n[1,2]\n```", `[1,2]`, true},
		{"字符串里的括号不干扰", `{"msg":"含 } 和 { 的文本"}`, `{"msg":"含 } 和 { 的文本"}`, true},
		{"转义引号", `{"msg":"she said \"hi}\" ok"}`, `{"msg":"she said \"hi}\" ok"}`, true},
		{"嵌套对象", `前缀 {"a":{"b":2}} 后缀`, `{"a":{"b":2}}`, true},
		{"顶层数组", `结果 [1, 2, 3]`, `[1, 2, 3]`, true},
		{"括号不闭合", `{"a":1`, "", false},
		{"纯文本", "没有任何结构", "", false},
		{"空串", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.raw)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractJSONPrefersObjectOverArray(t *testing.T) {
	got, ok := ExtractJSON(`[1,2] 然后 {"a":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got, "裁判输出以对象为主，对象优先")
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "不是 json", Pretty("不是 json"))
	assert.Equal(t, "", Pretty("  "))
}
