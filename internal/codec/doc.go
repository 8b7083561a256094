// Package codec converts patient rosters to and from text formats.
//
// JSONCodec and YAMLCodec implement both Importer and Exporter. ForPath and
// ForFormat pick a codec by file extension or format name. Whole-database
// transfer (.sqlite files) is not a codec concern; see the repository.
package codec
