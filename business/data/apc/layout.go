package apc

// colKind is the declared type of a raw fixed-width column.
type colKind int

const (
	colInt colKind = iota
	colFloat
	colString
)

// rawColumn describes one field of the raw STP file: its vendor name, the
// half-open byte range it occupies on each line, its declared type and, for
// strings, the maximum length.
type rawColumn struct {
	name  string
	start int
	end   int
	kind  colKind
	width int
}

// columnsToRead is how many leading columns of the layout the cleaner
// consumes, through NEXTTRIP.
const columnsToRead = 75

// headerRows is the number of banner rows at the top of each raw file.
const headerRows = 2

// rawLayout is the versioned byte-offset contract for the raw STP files.
// Offsets must not drift between releases without a migration note.
var rawLayout = []rawColumn{
	{name: "SEQ", start: 0, end: 5, kind: colInt},              // stop sequence
	{name: "V2", start: 6, end: 10, kind: colInt},              // not used
	{name: "QSTOP", start: 10, end: 14, kind: colInt},          // unique stop no
	{name: "STOPNAME", start: 15, end: 47, kind: colString, width: 32},
	{name: "TIMESTOP_INT", start: 48, end: 54, kind: colInt},   // arrival time
	{name: "ON", start: 55, end: 58, kind: colInt},
	{name: "OFF", start: 59, end: 62, kind: colInt},
	{name: "LOAD_DEP", start: 63, end: 66, kind: colInt},       // departing load
	{name: "LOADCODE", start: 67, end: 68, kind: colInt},       // ADJ=*, BAL=B
	{name: "DATE_INT", start: 68, end: 74, kind: colInt},
	{name: "ROUTE", start: 75, end: 79, kind: colInt},
	{name: "PATTERN", start: 80, end: 86, kind: colInt},        // schedule pattern
	{name: "BLOCK", start: 87, end: 93, kind: colInt},
	{name: "LAT", start: 94, end: 102, kind: colFloat},
	{name: "LON", start: 103, end: 112, kind: colFloat},
	{name: "MILES", start: 113, end: 118, kind: colFloat},      // odometer reading
	{name: "TRIP", start: 119, end: 123, kind: colInt},
	{name: "DOORCYCLES", start: 124, end: 125, kind: colInt},
	{name: "DELTA", start: 126, end: 130, kind: colInt},
	{name: "DOW", start: 131, end: 132, kind: colInt},          // 1 weekday, 2 sat, 3 sun
	{name: "DIR", start: 133, end: 134, kind: colInt},
	{name: "VEHMILES", start: 135, end: 140, kind: colFloat},   // miles traveled from last stop
	{name: "DLPMIN", start: 141, end: 145, kind: colFloat},     // delta minutes
	{name: "PASSMILES", start: 146, end: 153, kind: colFloat},
	{name: "PASSHOURS", start: 154, end: 160, kind: colFloat},
	{name: "VEHNO", start: 161, end: 165, kind: colInt},        // bus number
	{name: "LINE", start: 166, end: 170, kind: colInt},         // APC numeric route code
	{name: "DBNN", start: 171, end: 175, kind: colInt},         // data batch
	{name: "TIMESTOP_S_INT", start: 176, end: 180, kind: colInt},
	{name: "RUNTIME_S", start: 181, end: 186, kind: colFloat},
	{name: "RUNTIME", start: 187, end: 192, kind: colFloat},
	{name: "ODOM", start: 193, end: 198, kind: colFloat},       // not used
	{name: "GODOM", start: 199, end: 204, kind: colFloat},      // distance (GPS)
	{name: "TIMESTOP_DEV", start: 205, end: 211, kind: colFloat},
	{name: "DWELL", start: 212, end: 217, kind: colFloat},
	{name: "MSFILE", start: 218, end: 226, kind: colInt},       // sign up YYMM
	{name: "QC101", start: 227, end: 230, kind: colInt},        // not used
	{name: "QC104", start: 231, end: 234, kind: colInt},        // GPS QC
	{name: "QC201", start: 235, end: 238, kind: colInt},        // count QC
	{name: "AQC", start: 239, end: 242, kind: colInt},          // assignment QC
	{name: "RECORD", start: 243, end: 244, kind: colInt},
	{name: "WHEELCHAIR", start: 245, end: 246, kind: colInt},
	{name: "BIKERACK", start: 247, end: 248, kind: colInt},
	{name: "SP2", start: 249, end: 250, kind: colInt},          // not used
	{name: "V51", start: 251, end: 257, kind: colInt},          // not used
	{name: "VERSN", start: 258, end: 263, kind: colInt},        // import version
	{name: "DOORCLOSE_INT", start: 264, end: 270, kind: colInt},
	{name: "UON", start: 271, end: 274, kind: colInt},          // unadjusted on
	{name: "UOFF", start: 275, end: 278, kind: colInt},         // unadjusted off
	{name: "CAPACITY", start: 279, end: 283, kind: colInt},
	{name: "OVER", start: 284, end: 288, kind: colInt},         // 5 over cap
	{name: "NS", start: 289, end: 290, kind: colString, width: 2},
	{name: "EW", start: 291, end: 292, kind: colString, width: 2},
	{name: "MAXVEL", start: 293, end: 296, kind: colFloat},
	{name: "RDBRDNGS", start: 297, end: 301, kind: colInt},     // rear door boardings
	{name: "DV", start: 302, end: 304, kind: colInt},           // division
	{name: "PATTCODE", start: 305, end: 315, kind: colString, width: 10},
	{name: "DWDI", start: 316, end: 320, kind: colFloat},       // distance traveled during dwell
	{name: "RUN", start: 321, end: 328, kind: colInt},
	{name: "SCHOOL", start: 329, end: 335, kind: colInt},
	{name: "TRIPID_2", start: 336, end: 344, kind: colInt},     // long trip ID
	{name: "PULLOUT_INT", start: 345, end: 351, kind: colInt},  // movement time
	{name: "DOORCLOSE_S_INT", start: 352, end: 356, kind: colInt},
	{name: "DOORCLOSE_DEV", start: 357, end: 363, kind: colFloat},
	{name: "DWELL_S", start: 364, end: 368, kind: colInt},
	{name: "RECOVERY_S", start: 369, end: 374, kind: colFloat},
	{name: "RECOVERY", start: 375, end: 380, kind: colFloat},
	{name: "POLITICAL", start: 381, end: 390, kind: colInt},    // not used
	{name: "DELTAA", start: 391, end: 397, kind: colInt},       // distance from stop at arrival
	{name: "DELTAD", start: 398, end: 404, kind: colInt},       // distance from stop at departure
	{name: "ECNT", start: 405, end: 409, kind: colInt},         // error count
	{name: "MC", start: 410, end: 412, kind: colInt},           // municipal code
	{name: "DIV", start: 413, end: 416, kind: colInt},          // division
	{name: "LASTTRIP", start: 417, end: 421, kind: colInt},     // previous trip
	{name: "NEXTTRIP", start: 422, end: 426, kind: colInt},     // next trip
	{name: "V86", start: 427, end: 430, kind: colInt},          // not used
	{name: "TRIPID_3", start: 431, end: 441, kind: colInt},
	{name: "WCC", start: 442, end: 445, kind: colInt},
	{name: "BRC", start: 446, end: 449, kind: colInt},
	{name: "DWELLI", start: 450, end: 455, kind: colInt},
	{name: "QC202", start: 456, end: 459, kind: colInt},
	{name: "QC302", start: 460, end: 463, kind: colInt},
	{name: "QC303", start: 464, end: 467, kind: colInt},
	{name: "QC206", start: 468, end: 471, kind: colInt},
	{name: "QC207", start: 472, end: 475, kind: colInt},
	{name: "DGFT", start: 476, end: 481, kind: colInt},
	{name: "DGM", start: 482, end: 485, kind: colInt},
	{name: "DGH", start: 486, end: 489, kind: colInt},
	{name: "LRSE", start: 490, end: 494, kind: colInt},
	{name: "LRFT", start: 495, end: 499, kind: colInt},
	{name: "ARRIVEP", start: 500, end: 507, kind: colInt},
	{name: "DEPARTP", start: 508, end: 515, kind: colInt},
	{name: "DWELLP", start: 516, end: 522, kind: colInt},
	{name: "NRSE", start: 523, end: 527, kind: colInt},
	{name: "NRFT", start: 528, end: 533, kind: colInt},
	{name: "SC", start: 534, end: 536, kind: colInt},
	{name: "T_MILE", start: 537, end: 543, kind: colInt},
	{name: "CARS", start: 544, end: 547, kind: colInt},
}

// routeAlias maps the agency's numeric APC route codes to the public route
// names. Codes without an entry fall back to the numeric code as a string.
var routeAlias = map[int64]string{
	509: "9L (509)",
	514: "14L (514)",
	528: "28L (528)",
	538: "38L (538)",
	571: "71L (571)",
	601: "KOWL (601)",
	602: "LOWL (602)",
	603: "MOWL (603)",
	604: "NOWL (604)",
	605: "N (605)",
	606: "J (606)",
	607: "F (607)",
	608: "K (608)",
	609: "L (609)",
	610: "M (610)",
	611: "S (611)",
	612: "T (612)",
	708: "8X (708)",
	709: "9X (709)",
	714: "14X (714)",
	716: "16X (716)",
	730: "30X (730)",
	780: "80X (780)",
	781: "81X (781)",
	782: "82X (782)",
	797: "NX (797)",
	801: "1BX (801)",
	808: "8BX (808)",
	809: "9BX (809)",
	816: "16BX (816)",
	831: "31BX (831)",
	838: "38BX (838)",
	901: "1AX (901)",
	908: "8AX (908)",
	909: "9AX (909)",
	914: "14X (914)",
	916: "16AX (916)",
	931: "31AX (931)",
	938: "38AX (938)",
}
