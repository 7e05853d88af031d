package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><script>var endpoint = "/wp/admin-ajax.php";</script></body></html>`,
	))
	require.NoError(t, err)

	var text string
	for _, node := range doc.Find("script").Nodes {
		text += GetText(node)
	}
	require.Equal(t, `var endpoint = "/wp/admin-ajax.php";`, text)
}

func TestCleanFragment(t *testing.T) {
	testCases := []struct {
		name     string
		fragment string
		expected string
	}{
		{
			name:     "break tags become newlines",
			fragment: "【自】 アンコール<br>【起】 集中<br />ほかのキャラ",
			expected: "【自】 アンコール\n【起】 集中\nほかのキャラ",
		},
		{
			name:     "script and style blocks are dropped",
			fragment: `before<script type="text/javascript">alert(1)</script><style>.x{}</style>after`,
			expected: "beforeafter",
		},
		{
			name:     "tags stripped and entities decoded",
			fragment: `<span class="hl">&laquo;魔法&raquo; &amp; &lt;特徴&gt;</span>`,
			expected: "«魔法» & <特徴>",
		},
		{
			name:     "lines trimmed and blanks removed",
			fragment: "  first line  \r\n\r\n\t second line \n\n",
			expected: "first line\nsecond line",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, CleanFragment(tc.fragment))
		})
	}
}
