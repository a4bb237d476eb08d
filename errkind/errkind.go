// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errkind holds the error taxonomy shared by every pipeline stage.
//
// Each kind is a gopkg.in/src-d/go-errors.v1 Kind, the same registry the
// mysql-server auth package uses for ErrNotAuthorized. A Kind carries a
// message template; New builds an instance, Is checks membership. Callers
// outside the core should switch on Is, never on error strings.
package errkind

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// SqlError wraps a parser failure with the parser's own message.
	SqlError = errors.NewKind("sql error: %s")

	// MissingSqlStatement is raised when the logical planner is given an
	// empty statement list.
	MissingSqlStatement = errors.NewKind("missing SQL statement")

	// UnsupportedSyntax is raised for AST shapes the logical planner does
	// not lower.
	UnsupportedSyntax = errors.NewKind("unsupported syntax: %s")

	// ParameterError is raised when positional parameter counts mismatch.
	ParameterError = errors.NewKind("parameter error: %s")

	// ColumnNotFound is raised by the binder when an identifier does not
	// resolve to any identity in scope.
	ColumnNotFound = errors.NewKind("column not found: %s")

	// AmbiguousIdentifier is raised by the binder when an identifier
	// resolves to more than one identity in scope.
	AmbiguousIdentifier = errors.NewKind("ambiguous identifier: %s")

	// TypeMismatch is raised by the binder or by a strict cast.
	TypeMismatch = errors.NewKind("type mismatch: %s")

	// PermissionsError is raised when a connection lacks the permission
	// required by a query's top-level kind.
	PermissionsError = errors.NewKind("permission error: %s")

	// DatasetNotFound is raised when a Connector cannot locate a relation's
	// backing blobs.
	DatasetNotFound = errors.NewKind("dataset not found: %s")

	// EmptyDataset is raised when a Connector finds a relation directory
	// but no blobs within it.
	EmptyDataset = errors.NewKind("dataset is empty: %s")

	// UnsupportedFileType is raised when no decoder is registered for a
	// blob's extension.
	UnsupportedFileType = errors.NewKind("unsupported file type: %s")

	// UnsupportedSegmentation is raised by a partition scheme when it finds
	// a segmentation directory it does not understand.
	UnsupportedSegmentation = errors.NewKind("unsupported segmentation: %s")

	// CursorInvalidState is raised when a Cursor is reused after it has
	// already executed a statement.
	CursorInvalidState = errors.NewKind("cursor invalid state: %s")

	// OutOfMemory is raised by a greedy operator whose buffered state
	// exceeds its configured ceiling.
	OutOfMemory = errors.NewKind("out of memory: %s")

	// Cancelled is raised when a query's cancellation token trips, or its
	// deadline passes, between batch emissions.
	Cancelled = errors.NewKind("query cancelled after %s")

	// Internal is raised for invariant violations that indicate a bug in
	// the core rather than a user-facing condition.
	Internal = errors.NewKind("internal error: %s")
)
