/*
Package ports defines the driven ports (interfaces) of the Joule agent.

These interfaces decouple the conversation core from external implementations,
allowing it to work with various storage backends, LLM providers and CRMs.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading conversation sessions.
  - DistributedLocker: Provides distributed locking for concurrent turns on one session.
  - ChatModel: A single round-trip to the LLM backend.
  - RecordCreator: Finalizes completed workflows (create project / create brief).
  - ChatService: Entry point used by the transport adapters.
*/
package ports
