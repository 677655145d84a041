// Package session sets up X3DH sessions with every device of a peer.
//
// StartChat fetches one bundle per active device of the peer, verifies each
// signed prekey, checks the device identity against the pinned one and
// stores a session per userId:deviceId. A device whose bundle fails either
// check is skipped and reported; the others still get sessions.
package session
