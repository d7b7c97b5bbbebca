// Package params holds the caller-supplied JSON parameter tree used to fill
// template placeholders.
//
// A Value is a recursive tagged union of null, bool, number, string, list and
// map. Maps keep the key order of the source document and numbers keep their
// literal text, so encoding a decoded tree yields the same bytes.
//
//	v, err := params.Parse([]byte(`{"user":{"name":"bob"},"items":[{"sku":"A1"}]}`))
//	if err != nil {
//		return err
//	}
//	name, _ := v.Lookup("user.name")   // "bob"
//	sku, _ := v.Lookup("items.0.sku")  // "A1"
//	_, ok := v.Lookup("user.email")    // ok == false, no error
//
// Lookup never fails on a missing path: absent values resolve to null, which
// renders as an empty string.
package params
