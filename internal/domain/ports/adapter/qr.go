package adapter

// QRRenderer turns a redeem code into a scannable PNG image.
type QRRenderer interface {
	Render(code string) ([]byte, error)
}
