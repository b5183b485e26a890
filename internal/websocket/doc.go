// Package websocket serves interactive dashboard sessions over /ws.
//
// Every connection gets a Session holding its own controls. A message
//
//	{"type":"controls","year":2000,"metric":"co2","countries":["CHL"],"top_n":5}
//
// is merged into those controls and answered with
//
//	{"type":"snapshot","data":{"controls":…,"map":…,"ranking":…,"series":…,"warnings":[…]}}
//
// Rejected controls are answered with {"type":"error","error":{…}} and leave
// the session as it was. The read and write pumps follow the usual gorilla
// pattern with pings and write deadlines.
package websocket
