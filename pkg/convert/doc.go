// Package convert turns kdb+ values into host arrays.
//
// Layers, leaves first:
//
//   - sentinel and epoch helpers classify raw fields as ordinary, null or
//     ±infinity and rebase temporal values onto the host calendar
//   - the atom converter maps one scalar
//   - the vector converter maps homogeneous vectors and, recursively, mixed
//     lists
//   - the table converter maps the columns of a (keyed) table into a struct
//   - the dictionary converter builds one struct field per key, or delegates
//     to the table converter for keyed tables
//   - Dispatch picks a branch from the top-level type tag
//
// Conversion problems that leave a slot empty are diagnostics: they are
// logged at warn level, counted in metrics and returned in Result. Only a
// missing result, a kdb+ error or an unsupported top-level type stop a
// dispatch.
//
//	conv := convert.New(logger)
//	res := conv.Dispatch(x)
//	if res.Err != nil {
//	    return res.Err
//	}
//	use(res.Value)
package convert
