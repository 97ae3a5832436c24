// Package domain models standardized atmospheric ozone data: sources, models
// and the per-variable standardization contract.
//
// # Entity model
//
// A Source is a named data provider (an institution or programme) aggregating
// one or more Models. A Model is a named experiment or run holding up to two
// canonical zonal-mean ozone variables:
//
//	tco3_zm   total column ozone        axes: (time, lat)
//	vmro3_zm  ozone volume mixing ratio axes: (time, plev, lat)
//
// A Model with zero, one or two variables is valid: heterogeneous providers
// fail in heterogeneous ways and partial success is the normal operating mode,
// not an error state. A model whose variables all fail to load is absent from
// its Source entirely, never present empty.
//
// # Standardization contract
//
// Raw provider datasets arrive as multi-file NetCDF collections with
// provider-specific variable names, coordinate names, units and calendars.
// Standardization maps every raw collection into the canonical schema:
//
//  1. Files are concatenated along the time axis in caller-supplied order.
//     File order is authoritative: no reordering, no deduplication.
//  2. Every attribute whose key is not a CF convention attribute recognized by
//     downstream consumers ({standard_name, long_name, units, cell_methods,
//     bounds}) is stripped, at global, variable and coordinate level.
//  3. The raw variable and coordinate names are renamed to their canonical
//     counterparts. A configured raw coordinate missing from the dataset fails
//     the variable.
//  4. vmro3_zm values are converted to mol mol-1 through a fixed multiplier
//     table keyed by the declared raw unit string and stored single-precision.
//     An unrecognized unit string fails the variable.
//  5. The longitude axis is reduced away by a NaN-ignoring arithmetic mean and
//     dropped, together with its coordinate and bounds.
//  6. The time coordinate is materialized eagerly. Non-standard calendars
//     (360_day, noleap, all_leap) are converted to the proleptic Gregorian
//     calendar; the conversion is lossy for dates with no Gregorian
//     counterpart and is always logged.
//
// Longitude is therefore never an axis of a standardized variable.
//
// # Failure containment
//
// Standardization failures never propagate past the Source: each variable and
// each model is built behind its own containment boundary, failures are logged
// and the affected variable or model is omitted from the result. Only
// configuration-parse failures and output-directory I/O failures abort a run.
package domain
