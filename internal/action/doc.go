// Package action defines the remote-control actions the bridge exposes.
//
// Each action has a fixed route path, a parameter extractor for the legacy
// query-string form, a parameter extractor for the structured-intent form,
// and an invoker that runs a short chain of calls against one Kodi remote.
//
// Usage:
//
//	a, _ := action.Lookup(action.KindPlayMovie)
//	p, err := a.FromQuery(r.URL.Query())
//	if err != nil {
//	    return err // wraps ErrInvalidParams
//	}
//	err = a.Invoke(ctx, action.Env{Remote: target.Remote}, p)
//
// The table is static; it is built once and never mutated.
package action
