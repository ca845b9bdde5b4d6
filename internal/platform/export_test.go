package platform

// SongShelfSel re-exports songShelfSel for the external test package.
const SongShelfSel = songShelfSel
