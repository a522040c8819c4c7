package dispatcher

import "errors"

// errEchoMismatch means a CookieResponse's echoed identifier did not
// match the outstanding CookieRequest it claims to answer; the packet is
// dropped rather than surfaced to the host, since this is the expected
// shape of a stray or replayed response.
var errEchoMismatch = errors.New("dispatcher: cookie response echo id mismatch")
