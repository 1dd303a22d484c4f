package redis

import "fmt"

const ns = "cinemago:v1"

func KeyMovie(movieID int64) string {
	return fmt.Sprintf("%s:movie:%d", ns, movieID)
}

func KeyMovieList() string {
	return ns + ":movies"
}

func KeyMovieShowtimes(movieID int64) string {
	return fmt.Sprintf("%s:movie:%d:showtimes", ns, movieID)
}

func KeyTheater(theaterID int64) string {
	return fmt.Sprintf("%s:theater:%d", ns, theaterID)
}

func KeyTheaterList() string {
	return ns + ":theaters"
}

func KeyShowtime(showtimeID int64) string {
	return fmt.Sprintf("%s:showtime:%d", ns, showtimeID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyLock(name string) string {
	return fmt.Sprintf("%s:lock:%s", ns, name)
}

func ChannelShowtimesChanged() string {
	return ns + ":showtimes:changed"
}
