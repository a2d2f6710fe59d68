package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// 中文说明：
// 独立的 oracle 调用日志通道：记录每次外部视觉评分/对比请求的提示词与原始响应。
// 默认关闭，payload 全量落盘由配置开关控制。

var (
	oracleMu          sync.Mutex
	oracleLog         *log.Logger
	oracleDumpPayload bool
)

func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

func EnableOraclePayloadDump(enabled bool) {
	oracleMu.Lock()
	oracleDumpPayload = enabled
	oracleMu.Unlock()
}

type oracleSection struct {
	Title string
	Body  string
}

func logOracle(kind, target, purpose string, sections []oracleSection) {
	oracleMu.Lock()
	out := oracleLog
	oracleMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE]")
	for _, tag := range []string{kind, target, purpose} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}

// LogOracleRequest 记录一次 oracle 请求。images 仅记录地址/前缀，payload 受开关控制。
func LogOracleRequest(kind, target, systemPrompt, userPrompt string, images []string, payload string) {
	sections := []oracleSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	for i, img := range images {
		sections = append(sections, oracleSection{Title: fmt.Sprintf("IMAGE#%d", i+1), Body: truncateImageRef(img)})
	}
	if oracleDumpPayload && strings.TrimSpace(payload) != "" {
		sections = append(sections, oracleSection{Title: "PAYLOAD", Body: payload})
	}
	logOracle(kind+"-request", target, "", sections)
}

func LogOracleResponse(kind, target, raw string) {
	logOracle(kind+"-response", target, "", []oracleSection{{Title: "RAW", Body: raw}})
}

// truncateImageRef 防止 data URI 把日志撑爆，仅保留前缀。
func truncateImageRef(ref string) string {
	const max = 96
	if len(ref) <= max {
		return ref
	}
	return ref[:max] + fmt.Sprintf("...(%d bytes)", len(ref))
}
