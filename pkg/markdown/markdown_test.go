package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSafeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "escapes tags",
			in:   `<script>alert('x')</script>`,
			want: `&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;`,
		},
		{
			name: "escapes quotes and ampersands",
			in:   `Tom & "Jerry"`,
			want: `Tom &amp; &quot;Jerry&quot;`,
		},
		{
			name: "bold and italics",
			in:   "**Overdue** tasks need *attention*",
			want: "<strong>Overdue</strong> tasks need <em>attention</em>",
		},
		{
			name: "list wrapped once",
			in:   "Pending:\n- **Report**\n- Slides",
			want: "Pending:\n<ul><li><strong>Report</strong></li><li>Slides</li></ul>",
		},
		{
			name: "plain text untouched",
			in:   "All done for today.",
			want: "All done for today.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSafeHTML(tt.in))
		})
	}
}

func TestToSafeHTMLNeverPassesMarkup(t *testing.T) {
	out := ToSafeHTML("- <img src=x onerror=alert(1)>\n- **<b>bold</b>**")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "&lt;img")
}
