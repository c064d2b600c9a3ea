// Package tabular contains the core components of Tabular, an engine for keeping a windowed,
// locally-cached view of a dynamically-schemed table consistent with a remote canonical store.
// This root package defines the data model and interface boundaries shared by every
// subpackage, and is an excellent overview of Tabular's key concepts.
package tabular
