package migration

// Create builds a fresh database.
const Create = `
CREATE TABLE IF NOT EXISTS Run (
  id TEXT PRIMARY KEY,
  created DATETIME NOT NULL,
  source TEXT NOT NULL,
  outcome TEXT NOT NULL,
  weather_ok INTEGER NOT NULL,
  llm_ok INTEGER NOT NULL,
  mood TEXT
);

CREATE TABLE IF NOT EXISTS Record (
  run TEXT NOT NULL,
  sequence INTEGER NOT NULL,
  track TEXT NOT NULL,
  artist TEXT NOT NULL,
  played_at TEXT NOT NULL,
  tempo REAL,
  time_of_day TEXT NOT NULL,
  weather_ok INTEGER NOT NULL DEFAULT 0,
  temperature REAL,
  condition TEXT,
  mood TEXT,
  unavailable_reason TEXT,
  FOREIGN KEY (run) REFERENCES Run(id),
  PRIMARY KEY (run, sequence)
);

CREATE TABLE IF NOT EXISTS Tempo (
  artist TEXT NOT NULL,
  track TEXT NOT NULL,
  bpm REAL NOT NULL,
  updated DATETIME NOT NULL,
  PRIMARY KEY (artist, track)
);

CREATE TABLE IF NOT EXISTS Token (
  service TEXT PRIMARY KEY,
  token TEXT NOT NULL,
  updated DATETIME NOT NULL
);
`
