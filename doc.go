// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package sqljson implements the SQL JSON functions: parsing JSON and JSON5
// text, the JSONB binary encoding, path extraction, editing, RFC 7396 merge
// patches, table-valued iteration and the group aggregates.
//
// Values
//
// Function arguments and results are SQL values (NULL, integer, real, text
// or blob).  Text produced by a JSON function is marked with JSONText so
// that a later call embeds it as JSON instead of quoting it.  A blob
// argument that looks like JSONB is read as JSONB.
//
// JSONB
//
// JSONB is a compact binary encoding of a JSON document.  Each element has
// a one to nine byte header giving its kind and payload size, followed by
// the payload.  Numbers and strings keep their text form, so converting
// text to JSONB and back reproduces the input apart from whitespace and
// JSON5 extensions.  Convert, the Decoder and ToBSON/FromBSON expose the
// encoding directly.
//
// Caching
//
// A Context keeps a few recently parsed documents.  A chain of calls over
// the same text, including text returned by an edit, parses it once.  A
// Context is not safe for concurrent use; use one per goroutine.
//
// Testing
//
// Conversion to BSON is compared against the MongoDB Go driver, extraction
// against gjson and a JSONPath implementation, and edits against sjson.
// The tree and JSONB parsers are fuzzed against each other.
package sqljson
