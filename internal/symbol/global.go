package symbol

// Global labels program-wide locations (linear memories, the EVM stack) and the
// runtime routines that stack code calls through Procedure/Function instructions.
type Global uint8

const (
	GlobalNone Global = iota

	// Locations.
	GlobalStack
	GlobalStackHeight
	GlobalCallData
	GlobalMemory
	GlobalReturnData
	GlobalStorage
	GlobalTransientStorage

	// Routines.
	GlobalAddMod
	GlobalMulMod
	GlobalSha3
	GlobalAddress
	GlobalBalance
	GlobalOrigin
	GlobalCaller
	GlobalCallValue
	GlobalCallDataSize
	GlobalCallDataCopy
	GlobalGasPrice
	GlobalExtCodeSize
	GlobalExtCodeHash
	GlobalReturnDataSize
	GlobalReturnDataCopy
	GlobalBlockHash
	GlobalCoinbase
	GlobalTimestamp
	GlobalBlockNumber
	GlobalGasLimit
	GlobalChainID
	GlobalSelfBalance
	GlobalBaseFee
	GlobalMStore8
	GlobalMSize
	GlobalMCopy
	GlobalGas
	GlobalEvent
	GlobalCreate
	GlobalCreate2
	GlobalCall
	GlobalStaticCall
	GlobalDelegateCall
	GlobalReturn
	GlobalRevert
	GlobalStop
	GlobalInvalid
)

var globalNames = [...]string{
	GlobalNone:             "none",
	GlobalStack:            "Stack",
	GlobalStackHeight:      "StackHeight",
	GlobalCallData:         "CallData",
	GlobalMemory:           "Memory",
	GlobalReturnData:       "ReturnData",
	GlobalStorage:          "Storage",
	GlobalTransientStorage: "TransientStorage",
	GlobalAddMod:           "AddMod",
	GlobalMulMod:           "MulMod",
	GlobalSha3:             "Sha3",
	GlobalAddress:          "Address",
	GlobalBalance:          "Balance",
	GlobalOrigin:           "Origin",
	GlobalCaller:           "Caller",
	GlobalCallValue:        "CallValue",
	GlobalCallDataSize:     "CallDataSize",
	GlobalCallDataCopy:     "CallDataCopy",
	GlobalGasPrice:         "GasPrice",
	GlobalExtCodeSize:      "ExtCodeSize",
	GlobalExtCodeHash:      "ExtCodeHash",
	GlobalReturnDataSize:   "ReturnDataSize",
	GlobalReturnDataCopy:   "ReturnDataCopy",
	GlobalBlockHash:        "BlockHash",
	GlobalCoinbase:         "Coinbase",
	GlobalTimestamp:        "Timestamp",
	GlobalBlockNumber:      "BlockNumber",
	GlobalGasLimit:         "GasLimit",
	GlobalChainID:          "ChainId",
	GlobalSelfBalance:      "SelfBalance",
	GlobalBaseFee:          "BaseFee",
	GlobalMStore8:          "MStore8",
	GlobalMSize:            "MSize",
	GlobalMCopy:            "MCopy",
	GlobalGas:              "Gas",
	GlobalEvent:            "Event",
	GlobalCreate:           "Create",
	GlobalCreate2:          "Create2",
	GlobalCall:             "Call",
	GlobalStaticCall:       "StaticCall",
	GlobalDelegateCall:     "DelegateCall",
	GlobalReturn:           "Return",
	GlobalRevert:           "Revert",
	GlobalStop:             "Stop",
	GlobalInvalid:          "Invalid",
}

func (g Global) String() string {
	if int(g) < len(globalNames) && globalNames[g] != "" {
		return globalNames[g]
	}
	return "unknown"
}

// IsLocation reports whether g names addressable memory rather than a routine.
func (g Global) IsLocation() bool {
	return g >= GlobalStack && g <= GlobalTransientStorage
}

// Type is the hint assigned to the global's symbol.
func (g Global) Type() Type {
	switch g {
	case GlobalStack, GlobalCallData, GlobalMemory, GlobalReturnData:
		return Pointer
	case GlobalStackHeight:
		return UInt(PointerBits)
	default:
		return Word
	}
}
