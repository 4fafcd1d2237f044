// Package domain models seismic events from an FDSN-style event feed and
// implements the notification core: novelty detection, scope matching, and
// display grouping.
//
// # Data Source
//
// Events originate from a public FDSN event web service (INGV-style,
// https://webservices.ingv.it/). The feed adapter polls the GeoJSON endpoint
// for a fixed trailing window and hands the core a complete snapshot per
// cycle, never a delta. "New" is therefore computed locally against a
// watermark (the maximum event timestamp already processed).
//
// # Feed Conventions
//
// Place format:
//
//	"<distance> km <compass> <place>"  →  e.g. "5 km SW Napoli"
//	means 5 kilometers southwest of Napoli. Compass tokens are 1-3 uppercase
//	letters (N, S, E, W, NE, SSW, ...). Events at the named location omit the
//	prefix entirely (e.g. just "Costa Siciliana nord-orientale").
//	[NormalizePlace] strips the prefix for matching and display.
//
// Time format:
//
//	ISO-8601 with fractional seconds. The upstream feed has been observed to
//	omit the trailing UTC marker ("2024-05-12T03:14:05.120000" without "Z"),
//	so the feed adapter must parse wire times in UTC explicitly rather than
//	letting them default to local time. Every Event.Time in this package is
//	UTC by construction.
//
// Depth:
//
//	Kilometers below the surface. Degenerate feed rows occasionally carry a
//	negative depth (hypocenter resolved above the reference ellipsoid);
//	nothing in this package assumes depth is non-negative.
//
// Magnitude:
//
//	Unit-less local (ML) or moment (Mw) magnitude. Matching applies an
//	inclusive floor: magnitude >= the configured minimum.
//
// # Novelty
//
// The watermark advances to the maximum timestamp of every non-empty
// snapshot, even when no event crossed it. A backfilled event with a fresh id
// but a timestamp at or below the watermark is deliberately not surfaced as
// new: re-reviewed historical events would otherwise spam alerts hours after
// the fact. See [WatermarkTracker].
package domain
