package domain

// domain package contains the Domain Models of eoflow, the orchestrator of earth-observation workflows.
//
// `domain/ENTITY.go` has entities and functions over them.
// For example, `domain/job.go` contains the `ExecutionJob` entity.
//
// `domain/ENTITY/db` directory contains the interface to the persistence layer of the entity,
// with `mock` and `postgres` implementations.
//
// # Entities
//
// - `workflow`: a directed acyclic graph of nodes, connected with ComponentLinks (output port -> input port).
// Workflows are authored elsewhere. For eoflow, they are read-only.
//
// - `component`: what a node does, and ports of it. Processing components are run by Executors.
//
// - `job`: an orchestrated run of a workflow. A job has tasks, one (or more, for fan-out) per node.
//
// - `task`: a unit of work. Group tasks contain member tasks, executed in order.
//
// - `loop`: names of recurring loops driving jobs.
// Implementations of loops are in `cmd/loops/tasks/` directory.
//
// Status of jobs and tasks are changed only by commands (`pkg/command`).
