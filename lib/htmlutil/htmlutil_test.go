package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "John Q Doe", CleanText("  John Q\n\t Doe  "))
	require.Equal(t, "", CleanText("  \n"))
}

func TestLines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<table><tr id="r">
  <td><a href="#">View</a></td>
  <td>JOHN DOE<br/>123 MAIN ST<br>HOUSTON TX 77001</td>
  <td><span>(713) 555-0100</span></td>
  <td><script>var x = 1;</script>DOB: 01/02/1960</td>
</tr></table>`))
	require.NoError(t, err)

	lines := SelectionLines(doc.Find("#r"))
	require.Equal(t, []string{
		"View",
		"JOHN DOE",
		"123 MAIN ST",
		"HOUSTON TX 77001",
		"(713) 555-0100",
		"DOB: 01/02/1960",
	}, lines)

	require.Nil(t, SelectionLines(doc.Find("#missing")))
}

func TestPositionalLines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<table><tr id="r">
  <td><br/>JANE ROE<br/><br/>HOUSTON
    TX 77001<br/></td>
  <td>   </td>
  <td>(713) 555-0100</td>
</tr></table>`))
	require.NoError(t, err)

	require.Equal(t, []string{
		"JANE ROE",
		"",
		"HOUSTON TX 77001",
		"(713) 555-0100",
	}, SelectionPositionalLines(doc.Find("#r")))

	require.Equal(t, []string{
		"JANE ROE",
		"HOUSTON",
		"TX 77001",
		"(713) 555-0100",
	}, SelectionLines(doc.Find("#r")))

	require.Nil(t, SelectionPositionalLines(doc.Find("#missing")))
}
