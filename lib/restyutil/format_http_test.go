package restyutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactForm(t *testing.T) {
	body := url.Values{
		"ctl00$Login1$UserName": {"alice"},
		"ctl00$Login1$Password": {"hunter2"},
	}.Encode()

	redacted, err := url.ParseQuery(RedactForm(body))
	require.NoError(t, err)
	require.Equal(t, "alice", redacted.Get("ctl00$Login1$UserName"))
	require.Equal(t, "<redacted>", redacted.Get("ctl00$Login1$Password"))

	require.Equal(t, "a=1&b=2", RedactForm("a=1&b=2"))
}
