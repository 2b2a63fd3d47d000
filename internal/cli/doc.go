// Package cli implements the blobvault command-line interface.
//
// Every command loads the settings file (flag, $BLOBVAULT_CONFIG, or
// db_param.json), opens one storage handle, ensures the schema and closes
// the handle before returning:
//
//	blobvault status
//	blobvault add ./random_data.bin ./photo.png
//	blobvault list
//	blobvault show 3
//	blobvault export 3 --dir ./out --suffix _backup
//	blobvault export 3 --s3
//	blobvault verify 3
//	blobvault delete 3 --yes
//	blobvault roundtrip ./random_data.bin
//	blobvault generate --size-mb 10 --output random_data.bin
//	blobvault engine mysql
//	blobvault shell
//
// The shell command starts an interactive read–eval–print loop over the
// same operations, keeping a single storage handle open for the session.
//
// Errors are printed as "<kind>: <message>" and mapped to exit codes
// (see ExitCode* constants). Credentials never appear in output.
package cli
