package lumina

// Version is the SDK release version. It is stamped on the tracer scope and
// exported as the service.version resource attribute.
const Version = "0.1.0"
