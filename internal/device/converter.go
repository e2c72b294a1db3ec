// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
)

// EnergyToPower converts consecutive snapshots into average power samples.
// n snapshots yield n-1 samples, each stamped at the midpoint of its
// interval. A counter lower than its predecessor has wrapped at ceiling.
// Power is the integer quotient of µJ by ms, ie: watts.
func EnergyToPower(snapshots []EnergySnapshot, ceiling Energy) ([]PowerSample, error) {
	if len(snapshots) < 2 {
		return []PowerSample{}, nil
	}

	first := snapshots[0].Readings
	samples := make([]PowerSample, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]

		if len(cur.Readings) != len(first) {
			return nil, fmt.Errorf("%w: snapshot %d has %d domains, expected %d",
				ErrCounter, i, len(cur.Readings), len(first))
		}

		delta := cur.Timestamp.Sub(prev.Timestamp)
		deltaMs := delta.Milliseconds()
		if deltaMs <= 0 {
			return nil, fmt.Errorf("%w: snapshot %d is not after its predecessor (%dms)", ErrCounter, i, deltaMs)
		}

		data := make([]DomainPower, len(cur.Readings))
		for d, reading := range cur.Readings {
			if reading.Domain != first[d].Domain {
				return nil, fmt.Errorf("%w: snapshot %d domain %d is %q, expected %q",
					ErrCounter, i, d, reading.Domain, first[d].Domain)
			}
			data[d] = DomainPower{
				Domain: reading.Domain,
				Watts:  energyDelta(prev.Readings[d].Energy, reading.Energy, ceiling).MicroJoules() / uint64(deltaMs),
			}
		}

		samples = append(samples, PowerSample{
			Timestamp: cur.Timestamp.Add(-delta / 2),
			Data:      data,
		})
	}
	return samples, nil
}

func energyDelta(prev, cur, ceiling Energy) Energy {
	if cur < prev {
		return ceiling - prev + cur
	}
	return cur - prev
}
