package webforms

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// form is a scraped ASP.NET WebForms form. values carries every field the
// browser would post, hidden state like __VIEWSTATE included.
type form struct {
	action *url.URL
	values url.Values
	doc    *goquery.Document
}

// readForm scrapes the form that contains the element matched by anchor.
func readForm(doc *goquery.Document, pageURL *url.URL, anchor string) (form, error) {
	el := doc.Find(anchor).First()
	if el.Length() == 0 {
		return form{}, fmt.Errorf("could not find %s", anchor)
	}
	f := el.Closest("form")
	if f.Length() == 0 {
		f = doc.Selection
	}

	action := pageURL
	if raw, ok := f.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return form{}, fmt.Errorf("parse form action: %w", err)
		}
		action = pageURL.ResolveReference(ref)
	}

	values := url.Values{}
	f.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		switch strings.ToLower(input.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			values.Add(name, input.AttrOr("value", "on"))
			return
		}
		values.Add(name, input.AttrOr("value", ""))
	})
	f.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		option := sel.Find("option[selected]").First()
		if option.Length() == 0 {
			option = sel.Find("option").First()
		}
		if option.Length() == 0 {
			return
		}
		values.Add(name, option.AttrOr("value", strings.TrimSpace(option.Text())))
	})
	f.Find("textarea").Each(func(_ int, area *goquery.Selection) {
		if name, ok := area.Attr("name"); ok && name != "" {
			values.Add(name, area.Text())
		}
	})

	return form{action: action, values: values, doc: doc}, nil
}

// set fills the input matched by selector, it fails when there is none.
func (f form) set(selector, value string) error {
	name, ok := f.doc.Find(selector).First().Attr("name")
	if !ok || name == "" {
		return fmt.Errorf("could not find input %s", selector)
	}
	f.values.Set(name, value)
	return nil
}

// press adds the submit button matched by selector to the posted values,
// the way clicking it would.
func (f form) press(selector string) error {
	button := f.doc.Find(selector).First()
	name, ok := button.Attr("name")
	if !ok || name == "" {
		return fmt.Errorf("could not find button %s", selector)
	}
	f.values.Set(name, button.AttrOr("value", ""))
	return nil
}
