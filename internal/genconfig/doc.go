// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genconfig holds the generation parameters sent with each chat
// request, their editable JSON text form, and the built-in presets.
//
// The text form is canonical: temperature first, remaining fields sorted,
// two-space indent. Parsing the serialized form of any valid Params yields
// an equal Params.
package genconfig
