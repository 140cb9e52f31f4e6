/*
Package domain contains the core domain models of the Joule agent.

It defines the entities of the conversation state machine: sessions, their
history and the typed per-workflow records. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Session: the durable state of one conversation (history, active workflow, records).
  - Record: typed storage of one workflow (step index and captured fields).
  - Message: one entry of the sequence exchanged with the LLM.
  - Tool: a side-effect the LLM may request while producing an answer.
*/
package domain
