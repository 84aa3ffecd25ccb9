package constants

// ZeroAddress is the Ethereum zero address, used as the sentinel "no first
// operator" value OperatorSet.Validate rejects.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// OldKeyRetention is the retention window in epochs. epoch.OldKeyRetention
// is defined from it, so packages can use it without importing the
// registry itself.
const OldKeyRetention = 16

// Command names recognized by Executor.dispatch.
const (
	CommandApproveContractCall  = "approveContractCall"
	CommandTransferOperatorship = "transferOperatorship"
)

// Domain-separation labels of the approval ledger, keccak256-hashed once
// and then ABI-encoded as the leading `bytes` argument of its execKey and
// callKey derivations. The epoch registry keeps its own labels in package
// epoch. Keeping these here gives every package a single place to confirm
// the ledger's storage-key namespacing hasn't drifted.
const (
	ExecutedKeyLabel = "command-executed"
	ApprovedKeyLabel = "contract-call-approved"
)
