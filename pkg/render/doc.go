// Package render turns spool content trees into escaped HTML.
//
// Rendering happens in two phases. The Flattener walks the content tree
// depth first and emits an ordered sequence of fragments. Walking is
// synchronous: producers run one step at a time, unique requests are
// answered from the id source and effects are handed to the effect handler,
// whose results are fed back to the suspended producer. Deferred values are
// started the moment they are visited and emitted as pending fragments whose
// position is already fixed.
//
// The Renderer then waits for every pending fragment concurrently and joins
// all fragments in emission order, so the output never depends on which
// deferred value completes first.
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(ctx, content.Seq(
//	    html.HTML("<p>${}</p>", "2 > 1"),
//	))
//	// html == "<p>2 &gt; 1</p>"
//
// To stream output as fragments resolve:
//
//	sr := render.NewStreamingRenderer(w, render.RendererConfig{})
//	err := sr.Render(ctx, page)
//
// # Security
//
// Text content is escaped by default: &, < and > become entities. Safe
// content is written unchanged and must only wrap trusted markup. Attribute
// values are escaped with EscapeAttr, which also covers quotes. Text inside a
// content.Quoted sequence, nested and deferred values included, is escaped
// the same way.
//
// # Errors
//
// A rejected deferred value, a failing or panicking producer, a failing
// effect handler or an unsupported value fails the whole render with a
// *RenderError; errors.Is(err, ErrRenderFailed) holds for all of them.
package render
