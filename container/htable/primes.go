package htable

// primes is a small table of prime bucket counts, the classic growth
// sequence used by chained hashtables (libstdc++'s unordered_map uses the
// same strategy) so that bucketCount*maxLoadFactor stays comfortably ahead
// of the desired capacity without needing a general primality test on the
// hot insert path.
var primes = []int{
	7, 17, 31, 67, 127, 257, 509, 1021, 2053, 4099, 8209, 16411, 32771,
	65537, 131101, 262147, 524309, 1048583, 2097169, 4194319, 8388617,
	16777259, 33554467, 67108879, 134217757, 268435459, 536870923,
	1073741827,
}

// nextBucketCount returns the smallest prime p such that
// float64(p)*maxLoadFactor >= float64(desiredCapacity).
func nextBucketCount(desiredCapacity int, maxLoadFactor float64) int {
	if desiredCapacity < 1 {
		desiredCapacity = 1
	}
	for _, p := range primes {
		if float64(p)*maxLoadFactor >= float64(desiredCapacity) {
			return p
		}
	}
	return primes[len(primes)-1]
}
