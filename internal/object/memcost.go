package object

const (
	memPtrSize      int64 = 8
	memStringHead   int64 = 24
	memArrayHead    int64 = 24
	memTupleHead    int64 = 24
	memDictHead     int64 = 32
	memDictEntry    int64 = 24
	memSetEntry     int64 = 16
	memBigIntHead   int64 = 32
	memClassHead    int64 = 64
	memInstanceHead int64 = 32
	memErrorHead    int64 = 32
	memFunctionHead int64 = 64
	memNativeHead   int64 = 32
	memMethodHead   int64 = 24
	memModuleHead   int64 = 48
)

func CostStringBytes(n int) int64 {
	if n < 0 {
		return memStringHead
	}
	return memStringHead + int64(n)
}

func CostArray(n int) int64 {
	if n < 0 {
		return memArrayHead
	}
	return memArrayHead + int64(n)*memPtrSize
}

func CostArrayElements(n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(n) * memPtrSize
}

func CostTuple(n int) int64 {
	if n < 0 {
		return memTupleHead
	}
	return memTupleHead + int64(n)*memPtrSize
}

func CostDict(n int) int64 {
	if n < 0 {
		return memDictHead
	}
	return memDictHead + int64(n)*memDictEntry
}

func CostDictEntry() int64 {
	return memDictEntry
}

func CostSet(n int) int64 {
	if n < 0 {
		return memDictHead
	}
	return memDictHead + int64(n)*memSetEntry
}

func CostSetEntry() int64 {
	return memSetEntry
}

func CostBigInt(bits int) int64 {
	if bits <= 0 {
		return memBigIntHead
	}
	words := (int64(bits) + 63) / 64
	return memBigIntHead + words*8
}

func CostClass(bases, attrs int) int64 {
	return memClassHead + int64(max(bases, 0))*memPtrSize + int64(max(attrs, 0))*memDictEntry
}

func CostInstance(fields int) int64 {
	if fields < 0 {
		return memInstanceHead
	}
	return memInstanceHead + int64(fields)*memDictEntry
}

func CostError() int64 {
	return memErrorHead
}

func CostFunction(numConsts int) int64 {
	if numConsts < 0 {
		return memFunctionHead
	}
	return memFunctionHead + int64(numConsts)*memPtrSize
}

func CostNative() int64 {
	return memNativeHead
}

func CostBoundMethod() int64 {
	return memMethodHead
}

func CostModule(members int) int64 {
	if members < 0 {
		return memModuleHead
	}
	return memModuleHead + int64(members)*memDictEntry
}
