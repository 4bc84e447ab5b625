/*
Package schema defines the persisted pattern document and its strict codec.

The canonical document (version 2) maps pattern names to ordered lists of
relative steps:

	{
	  "version": 2,
	  "sensitivity": {"x": 1.5, "y": 1.5},
	  "patterns": {
	    "wave": [
	      {"dx": 1, "dy": 0, "duration": 100},
	      {"dx": 0, "dy": 1, "duration": 100}
	    ]
	  }
	}

Durations are milliseconds. "version" and "sensitivity" are optional; a
missing version means the current one.

Version 1 documents use absolute coordinates ({"x", "y", "delay"}). They are
only accepted when the document declares "version": 1, and are migrated on
decode into relative steps, taking (0,0) as the position before the first step.

Decode accepts JSON and YAML and keeps pattern order exactly as written.
Every structural problem is reported as a *ValidationError naming the first
offending pattern, step and field.
*/
package schema
