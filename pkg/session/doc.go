// Package session keeps visitor state in a storage driver behind a cookie.
//
// A [Manager] loads the session named by the MERACTSESSID cookie, or starts
// a new one, and saves it back under the "sessions" prefix with a sliding
// one-hour lifetime. The session middleware in package middlewares does this
// around every request; handlers reach the session through [FromContext]:
//
//	sess, _ := session.FromContext(req.Context())
//	visits := session.ValueOr(sess, "visits", 0.0)
//	sess.Set("visits", visits+1)
package session
