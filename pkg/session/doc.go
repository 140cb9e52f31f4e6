/*
Package session implements session management and persistence orchestration.

The Manager exposes the per-session operations of the conversation core
(history, active workflow, step index, captured values) on top of any
ports.SessionStore. It serializes work on one session with a
reference-counted local lock table and an optional distributed locker, and
offers Update, a load-modify-save transaction whose working copy is bound to
the context so tools triggered mid-turn resolve their session without any
process-wide "current session" pointer.
*/
package session
