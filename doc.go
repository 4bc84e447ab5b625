/*
Package pacer drives an actuator through named motion patterns.

A pattern is an ordered list of relative steps (dx, dy) each followed by a
dwell. Patterns are grouped in a PatternSet that is persisted as a single JSON
or YAML document. Exactly one pattern is active at a time: selecting another
one cancels the running sequence, waits for it to stop, and only then starts
the new one. Every change of the active pattern is published as a
pattern-selected notification.

# Usage

	eng, err := pacer.New(".pacer/patterns.json")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	sub := eng.Subscribe()
	defer sub.Close()

	if err := eng.SetActivePattern(ctx, "wave"); err != nil {
		log.Fatal(err)
	}
	fmt.Println((<-sub.C()).Name) // wave

By default the document is stored in a file and steps are written to the log.
Use WithPersister and WithActuator to plug in other adapters (redis, sqlite,
loam, an HTTP device service, an external command).

# Document

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

Durations are milliseconds. Version 1 documents with absolute {x, y, delay}
steps are migrated on load.
*/
package pacer
