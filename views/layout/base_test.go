package layout

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_EscapesTitleAndRendersBody(t *testing.T) {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<main>hello</main>")
		return err
	})

	var buf bytes.Buffer
	ctx := templ.WithChildren(context.Background(), body)
	err := Base(Page{Title: "<H F D M>", BodyClass: "bg-gray-50"}).Render(ctx, &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<title>&lt;H F D M&gt;</title>")
	assert.Contains(t, html, "<main>hello</main>")
	assert.Contains(t, html, "bg-gray-50")
	assert.NotContains(t, html, "bg-white", "page body class should override the base background")
	assert.NotContains(t, html, `name="description"`)
}

func TestBase_RendersDescriptionAndHead(t *testing.T) {
	head := templ.Raw(`<script src="/public/js/page.js"></script>`)

	var buf bytes.Buffer
	err := Base(Page{Title: "H F D M", Description: `a "quoted" tagline`, Head: head}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `<meta name="description" content="a &#34;quoted&#34; tagline">`)
	assert.Contains(t, html, `<script src="/public/js/page.js"></script></head>`)
	assert.Contains(t, html, "bg-white")
}
