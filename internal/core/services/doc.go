// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the partitioned vector index,
// retrieval, prompt assembly, chat, ingestion, chat history and the
// digital twin summariser.
//
// Services are pure Go with no CGO or external dependencies.
package services
