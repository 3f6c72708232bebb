package manager

import (
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"lukechampine.com/uint128"
)

// NextPoolRewardInfos advances every initialized reward slot of pool to
// timestamp. Growth per second is emissions / active liquidity, so nothing
// accrues while the pool has no liquidity.
func NextPoolRewardInfos(pool *state.Pool, timestamp uint64) ([state.NumRewards]state.RewardInfo, error) {
	infos := pool.RewardInfos
	last := pool.RewardLastUpdatedTimestamp
	if timestamp < last {
		return infos, errs.InvalidTimestamp
	}
	if pool.Liquidity.IsZero() || timestamp == last {
		return infos, nil
	}

	elapsed := uint128.From64(timestamp - last)
	for i := range infos {
		if !infos[i].Initialized() {
			continue
		}
		delta, err := clmath.CheckedMulDiv(elapsed, infos[i].EmissionsPerSecondX64, pool.Liquidity)
		if err != nil {
			return infos, fmt.Errorf("reward %d growth: %w", i, err)
		}
		infos[i].GrowthGlobalX64 = infos[i].GrowthGlobalX64.AddWrap(delta)
	}
	return infos, nil
}
