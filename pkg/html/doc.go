// Package html builds markup content for the spool renderer.
//
// Template and HTML mix trusted literal markup with values that are escaped
// when rendered:
//
//	html.HTML(`<a href="/users/${}">${}</a>`, user.ID, user.Name)
//
// Literal parts are Safe; values are classified with content.From, so they
// may be text, numbers, nested sequences, producers or deferred values.
//
// Attributes and Dataset serialize key/value pairs into attribute lists,
// dropping pairs whose value is omitted, even when that is only known once a
// deferred value resolves:
//
//	html.Attributes(html.A("href", "/first"), html.A("aria-current", false))
//	// href="/first"
//
//	html.Dataset(html.A("camelCaseKey", "2"))
//	// data-camel-case-key="2"
package html
