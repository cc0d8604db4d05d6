package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
	assert.Equal(t, "<b>x &lt; y</b>", Bold("x < y"))
	assert.Equal(t, "<code>s1/ibd</code>", Code("s1/ibd"))
}

func TestList(t *testing.T) {
	assert.Equal(t, "• a\n• &lt;b&gt;", List([]string{"a", "<b>"}))
	assert.Empty(t, List(nil))
}
