// Package errors provides coded, actionable errors for livedom.
//
// Structural errors are programming errors in a node description or in the
// way the engine is driven: mixed keyed and unkeyed siblings, a component
// definition without a draw hook, two mounts claiming the same DOM subtree.
// They are returned synchronously from the render or mount call that found
// them and are never retried.
//
// # Error Codes
//
// Each error has a code (e.g. "E001") that maps to a registered template:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E001").
//	    WithPath("div > ul").
//	    WithSuggestion("Give every <li> a key, or none of them")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Mixed keyed and unkeyed siblings
//	//
//	//   at div > ul
//	//
//	//   Within one children list either every element and component
//	//   carries a key or none does.
//	//
//	//   Hint: Give every <li> a key, or none of them
//
// Every structural error matches ErrStructural with errors.Is.
package errors
