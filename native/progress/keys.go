package progress

import (
	"fmt"

	"lessonchain/crypto"
)

var (
	recordSeed        = []byte("user_progress")
	metadataSeed      = []byte("metadata")
	mintAuthoritySeed = []byte("mint_authority")

	recordKeyPrefix = "progress/record/"
)

// DeriveRecordAddress returns the address of participant's progress record
// under programID together with the bump used.
func DeriveRecordAddress(programID, participant [20]byte) ([20]byte, uint8, error) {
	return crypto.FindProgramAddress([][]byte{recordSeed, participant[:]}, programID)
}

// DeriveMetadataAddress returns the metadata record address bound to mint.
func DeriveMetadataAddress(metadataProgramID, mint [20]byte) ([20]byte, error) {
	addr, _, err := crypto.FindProgramAddress([][]byte{metadataSeed, metadataProgramID[:], mint[:]}, metadataProgramID)
	return addr, err
}

// DeriveMintAuthority returns the program-owned address that signs reward mints.
func DeriveMintAuthority(programID [20]byte) ([20]byte, error) {
	addr, _, err := crypto.FindProgramAddress([][]byte{mintAuthoritySeed}, programID)
	return addr, err
}

func recordKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", recordKeyPrefix, addr))
}
