// Package types provides the domain records shared across the portalops
// coordinator: tasks, cases, sessions, attachments, the agent authorization
// context and the error taxonomy every layer speaks.
package types
