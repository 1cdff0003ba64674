package richtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPlainTextOpList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain ops",
			input: `[{"insert":"夜色很深。"},{"insert":"雨还在下\n"}]`,
			want:  "夜色很深。雨还在下\n",
		},
		{
			name:  "wrapper with attributes",
			input: `{"ops":[{"insert":"Hello","attributes":{"bold":true}},{"insert":" world\n"}]}`,
			want:  "Hello world\n",
		},
		{
			name:  "embed becomes newline",
			input: `[{"insert":"before"},{"insert":{"image":"a.png"}},{"insert":"after"}]`,
			want:  "before\nafter",
		},
		{
			name:  "loose records skip non insert ops",
			input: `[{"retain":3},{"insert":"kept"},{"delete":2}]`,
			want:  "kept",
		},
		{
			name:  "truncated json repaired",
			input: `[{"insert":"half written"},{"insert":"tail"`,
			want:  "half writtentail",
		},
		{
			name:  "truncated wrapper repaired",
			input: `{"ops":[{"insert":"第一段"},{"insert":"第二`,
			want:  "第一段第二",
		},
		{
			name:  "empty list",
			input: `[]`,
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPlainText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, `"insert"`)
			assert.NotContains(t, got, "{")
		})
	}
}

func TestToPlainTextHTML(t *testing.T) {
	in := `<p>Tom &amp; Jerry</p><p>&lt;run&gt; &quot;fast&quot; &apos;now&apos; it&#39;s&nbsp;over</p>`
	got := ToPlainText(in)
	assert.Equal(t, "Tom & Jerry\n<run> \"fast\" 'now' it's over", got)

	assert.Equal(t, "line1\nline2", ToPlainText("line1<br/>line2"))
	assert.Equal(t, "kept", ToPlainText("<!-- note --><span>kept</span>"))
	assert.Equal(t, "&lt;", ToPlainText("<b>&amp;lt;</b>"), "single pass decoding")
}

func TestToPlainTextPassThrough(t *testing.T) {
	for _, in := range []string{
		"just words",
		"1 < 2 and 3 > 2",
		"[旁白] 他停下了脚步 [完]",
		"[1,2,3]",
		"{not ops}",
		"  padded  ",
		"",
	} {
		assert.Equal(t, in, ToPlainText(in), in)
	}
}

func TestIsOpList(t *testing.T) {
	assert.True(t, IsOpList(`[{"insert":"x"}]`))
	assert.True(t, IsOpList(` {"ops":[{"insert":"x"}]} `))
	assert.False(t, IsOpList(`<p>x</p>`))
	assert.False(t, IsOpList(`[1,2]`))
	assert.False(t, IsOpList(`plain`))
	assert.True(t, IsOpList(`[{"insert":"cut off"`))
	assert.False(t, IsOpList(`[旁白] 未闭合`))
}

func TestPlainLength(t *testing.T) {
	ops := `[{"insert":"雨夜"},{"insert":{"divider":true}}]`
	assert.Equal(t, 3, PlainLength(ops))

	html := "<p>ab</p>"
	assert.Equal(t, len(html), PlainLength(html))

	assert.Equal(t, 4, PlainLength("四个汉字"))
	assert.Equal(t, 0, PlainLength(""))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(`[{"insert":"\n"}]`))
	assert.True(t, IsBlank("<p> </p>"))
	assert.False(t, IsBlank("x"))
	assert.False(t, IsBlank(strings.Repeat(" ", 3)+"y"))
}
