/*
Package dsl provides a Go DSL for programmatically constructing pattern sets.

It allows developers to define motion patterns using a type-safe, fluent builder
instead of writing JSON or YAML documents by hand. This is particularly useful for
generated patterns, unit tests and embedding.

Example usage:

	b := dsl.New().Sensitivity(1.5, 1.5)

	b.Add("wave").
		Move(1, 0, 100*time.Millisecond).
		Move(0, 1, 100*time.Millisecond)

	b.Add("square").
		Path(100*time.Millisecond, dsl.Point{X: 0, Y: 10}, dsl.Point{X: 10, Y: 10}, dsl.Point{X: 10, Y: 0}, dsl.Point{}).
		Repeat(2)

	set, err := b.Build()
	// ... pass set to engine.SaveConfig(ctx, set)
*/
package dsl
