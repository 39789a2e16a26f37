package platform

// Package platform contains filesystem and presentation helpers shared by the
// pipelines and the bot: filename sanitization, directory creation, and human
// readable size/speed/duration formatting.
