/*
Package operations provides the Operations API for managing and executing backup
operations in a structured, reliable, and traceable manner.

# Operations API

The Operations API enables:
- Defining reusable backup operations with versioning
- Executing operations with retry logic and error handling
- Tracking operation results and generating reports
- Sequencing multiple operations with dependencies
- Waiting on asynchronously completing cloud operations until they reach a terminal state

# Core Components

Operation:
  - Defines a single backup operation with inputs, dependencies, and outputs
  - Includes versioning, validation, and execution logic
  - Supports generic typing for type-safe operation definitions

Registry:
  - Stores and retrieves operations by ID and version
  - Enables operation lookup and reuse across flows
  - Provides centralized operation management

Executor:
  - Executes operations with configurable retry policies
  - Handles operation failures and recovery strategies
  - Supports input hooks for dynamic parameter adjustment

Sequence:
  - Orchestrates multiple operations in dependency order
  - Manages operation execution flow and error propagation
  - Provides sequence-level reporting and validation

Reporter:
  - Tracks operation execution results and metadata
  - Generates detailed reports for audit and debugging
  - Supports custom reporting formats and outputs

Tracker:
  - Polls a caller-supplied status query at a fixed (optionally backed-off) interval
  - Bounds the total wait with a time budget and classifies raw provider statuses
  - Produces exactly one terminal outcome: completed, failed or timed out

# Basic Usage

	// Define an operation
	op := operations.NewOperation(
		"create-snapshot", semver.MustParse("1.0.0"), "Creates a manual cluster snapshot",
		handler,
	)

	// Execute the operation
	bundle := operations.NewBundle(ctxGetter, logger, reporter)
	result, err := operations.ExecuteOperation(bundle, op, deps, input)

	// Wait for the snapshot to become available
	outcome := operations.AwaitTerminal(bundle, result.Output.SnapshotID, query, policy)
*/
package operations
