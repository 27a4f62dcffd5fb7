package draft

// CascadeAsync exposes cascadeAsync to external tests.
var CascadeAsync = (*Service).cascadeAsync
