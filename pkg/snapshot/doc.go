// Package snapshot defines persistence-facing contracts for checkpointing
// container targets around copy-on-write promotions.
//
// Responsibilities:
//   - Store[T] only loads/saves a single checkpoint for a single Ref.
//   - The core cow package remains persistence-agnostic; all persistence
//     logic stays behind Store implementations supplied by consumers.
//
// Data flow:
//
//	cow.WithCheckpointStore(store) -> promotion -> Store.Save(pre-copy target)
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key built from the
//	container ID and the state that was active when the checkpoint was
//	taken. A store sees at most one record per (container, state) pair;
//	the latest save wins.
package snapshot
