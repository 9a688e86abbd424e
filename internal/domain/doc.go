// Package domain models precipitation-type jobs as they travel through the
// service.
//
// # Jobs
//
// A [GridJob] carries co-registered input grids, their labels, the method
// name and threshold, an optional reflectivity grid for the combined mask and
// an optional geo-reference. Jobs arrive on the source topic as JSON, or as
// MessagePack when the message header content-type is
// "application/x-msgpack". Grids are row-major nested arrays:
//
//	{
//	  "id": "alps-0600",
//	  "method": "dual_tw",
//	  "threshold": [0, 3],
//	  "labels": ["tair", "tdew", "dem"],
//	  "fields": [[[20, 20], [2, 2]], [[20, 20], [0, 0]], [[0, 0], [1500, 1500]]],
//	  "reflectivity": [[0.2, 2], [6, 12]]
//	}
//
// A job without an id takes the message key, and failing that a new UUID.
// A job without a method takes the service default.
//
// # NoData
//
// JSON has no NaN, so missing cells travel as [NoDataValue] (-9999) in both
// directions. Input cells equal to NoDataValue are read as NaN and NaN
// output cells are written as NoDataValue.
//
// # Results
//
// [ClassifyJob] runs the classifier and, when reflectivity is present, the
// combined mask. The [ClassifiedGrid] it returns is what the sink topic, the
// result cache and the HTTP API hand out. For ks the result holds snow
// probabilities; the deterministic methods emit 0 (rain), 1 (sleet) or
// 2 (snow). Combined codes are 0–4 rain, 5–9 sleet, 10–14 snow.
package domain
