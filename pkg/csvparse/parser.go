// Package csvparse 实现提交文件与答案文件共用的逐字符 CSV 解析器。
//
// 解析器不会返回错误：字段中间出现的引号按字面量追加，而不是拒绝输入。
package csvparse

import (
	"strings"
)

const (
	DefaultDelimiter = ','
	DefaultQuote     = '"'
)

// Options 允许替换分隔符和引号字符
type Options struct {
	Delimiter rune
	Quote     rune
}

// Parse 使用逗号分隔、双引号包裹的默认格式解析文本
func Parse(text string) [][]string {
	return ParseWith(text, Options{Delimiter: DefaultDelimiter, Quote: DefaultQuote})
}

// ParseWith 按给定选项解析文本，返回行列表
func ParseWith(text string, opts Options) [][]string {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.Quote == 0 {
		opts.Quote = DefaultQuote
	}

	normalized := normalize(text)
	if normalized == "" {
		return [][]string{}
	}

	var (
		rows     = make([][]string, 0)
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	input := []rune(normalized)
	for i := 0; i < len(input); i++ {
		ch := input[i]

		if inQuotes {
			if ch == opts.Quote {
				// 连续两个引号表示一个字面引号
				if i+1 < len(input) && input[i+1] == opts.Quote {
					field.WriteRune(opts.Quote)
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case opts.Delimiter:
			row = append(row, field.String())
			field.Reset()
		case '\n':
			row = append(row, field.String())
			rows = append(rows, row)
			row = nil
			field.Reset()
		case opts.Quote:
			if field.Len() == 0 {
				inQuotes = true
			} else {
				field.WriteRune(ch)
			}
		default:
			field.WriteRune(ch)
		}
	}

	// 末尾没有换行时补齐最后一行
	if len(row) > 0 || field.Len() > 0 {
		row = append(row, field.String())
		rows = append(rows, row)
	}

	return rows
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Serialize 把行写回 CSV 文本；包含分隔符、引号或换行的字段会被加上引号
func Serialize(rows [][]string) string {
	return SerializeWith(rows, Options{Delimiter: DefaultDelimiter, Quote: DefaultQuote})
}

func SerializeWith(rows [][]string, opts Options) string {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.Quote == 0 {
		opts.Quote = DefaultQuote
	}

	quote := string(opts.Quote)
	special := string([]rune{opts.Delimiter, opts.Quote, '\n', '\r'})

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, f := range row {
			if j > 0 {
				b.WriteRune(opts.Delimiter)
			}
			if strings.ContainsAny(f, special) {
				b.WriteString(quote)
				b.WriteString(strings.ReplaceAll(f, quote, quote+quote))
				b.WriteString(quote)
				continue
			}
			b.WriteString(f)
		}
	}
	return b.String()
}
